package openai

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/ragflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passage(rank int, text string) core.RetrievalResult {
	return core.RetrievalResult{
		ChunkID:         uuid.New(),
		TextContent:     text,
		SimilarityScore: 0.9,
		Rank:            rank,
	}
}

func countByLen(text string) int { return len(text) }

func TestFitToBudget(t *testing.T) {
	t.Run("all passages fit", func(t *testing.T) {
		passages := []core.RetrievalResult{passage(1, "aaa"), passage(2, "bbb")}
		kept := fitToBudget(passages, 10000, countByLen)
		assert.Len(t, kept, 2)
	})

	t.Run("lowest ranked dropped first", func(t *testing.T) {
		passages := []core.RetrievalResult{
			passage(1, strings.Repeat("a", 100)),
			passage(2, strings.Repeat("b", 100)),
			passage(3, strings.Repeat("c", 100)),
		}
		oneBlock := countByLen(renderPassage(passages[0]))
		kept := fitToBudget(passages, oneBlock*2, countByLen)
		require.Len(t, kept, 2)
		assert.Equal(t, 1, kept[0].Rank)
		assert.Equal(t, 2, kept[1].Rank)
	})

	t.Run("rank one kept even over budget", func(t *testing.T) {
		passages := []core.RetrievalResult{passage(1, strings.Repeat("a", 500))}
		kept := fitToBudget(passages, 10, countByLen)
		require.Len(t, kept, 1)
		// never split a passage
		assert.Equal(t, passages[0].TextContent, kept[0].TextContent)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, fitToBudget(nil, 100, countByLen))
	})
}

func TestRenderPassage(t *testing.T) {
	p := passage(2, "produto chegou quebrado")
	p.Metadata = map[string]string{"category": "eletronicos", "score": "1", "sentiment": "negativo"}

	block := renderPassage(p)
	assert.Contains(t, block, "[Avaliação 2]")
	assert.Contains(t, block, p.ChunkID.String())
	assert.Contains(t, block, "Categoria: eletronicos")
	assert.Contains(t, block, "Nota: 1 estrelas")
	assert.Contains(t, block, "produto chegou quebrado")
}

func TestBuildUserPrompt(t *testing.T) {
	t.Run("with context", func(t *testing.T) {
		prompt := buildUserPrompt("por que as notas são baixas?", []core.RetrievalResult{passage(1, "entrega atrasou")})
		assert.Contains(t, prompt, "entrega atrasou")
		assert.Contains(t, prompt, "Pergunta: por que as notas são baixas?")
	})

	t.Run("without context", func(t *testing.T) {
		prompt := buildUserPrompt("pergunta", nil)
		assert.Contains(t, prompt, noContextNotice)
	})
}

func TestScreenAnswer(t *testing.T) {
	t.Run("grounded answer passes", func(t *testing.T) {
		safe, _ := screenAnswer("As avaliações negativas citam principalmente atrasos na entrega.")
		assert.True(t, safe)
	})

	t.Run("model leak replaced", func(t *testing.T) {
		for _, leak := range []string{
			"Eu sou o gpt-4 rodando com temperature 0.7",
			"Minhas instruções dizem para responder apenas sobre avaliações",
			"Sou uma IA treinada pela OpenAI",
			"Meu system prompt contém regras de segurança",
		} {
			safe, reason := screenAnswer(leak)
			assert.False(t, safe, leak)
			assert.NotEmpty(t, reason)
		}
	})
}
