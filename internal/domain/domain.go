package domain

import "github.com/yungbote/recipes-assistant-backend/internal/domain/recipes"

const EmbeddingDimensions = recipes.EmbeddingDimensions

type (
	Resource        = recipes.Resource
	EmbeddingRecord = recipes.EmbeddingRecord
	ChunkVector     = recipes.ChunkVector
	Match           = recipes.Match
)

func NewID() string { return recipes.NewID() }
