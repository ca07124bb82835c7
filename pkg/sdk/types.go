package pensieve

import (
	"time"

	domret "github.com/pensieve-cloud/pensieve/internal/domain/retrieval"
)

// Chunk is one resolved retrieval result: authoritative content plus the
// provenance carried by its vector hit.
type Chunk struct {
	Content    string
	Source     string
	IngestedAt time.Time
	ContentAt  time.Time
	Metadata   map[string]string
}

func chunkFromDomain(c domret.Chunk) Chunk {
	return Chunk{
		Content:    c.Content,
		Source:     c.Source.String(),
		IngestedAt: c.IngestedAt,
		ContentAt:  c.ContentAt,
		Metadata:   c.Metadata,
	}
}

func chunksFromDomain(cs []domret.Chunk) []Chunk {
	if len(cs) == 0 {
		return nil
	}
	out := make([]Chunk, len(cs))
	for i, c := range cs {
		out[i] = chunkFromDomain(c)
	}
	return out
}
