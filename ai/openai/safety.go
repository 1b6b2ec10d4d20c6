package openai

import "regexp"

// The answer screen is the second line of defense behind the system prompt:
// even a successful jailbreak must not leak model, prompt or configuration
// details to the caller.
var leakPatterns = []struct {
	pattern *regexp.Regexp
	reason  string
}{
	{regexp.MustCompile(`(?i)gpt-\d`), "model identifier"},
	{regexp.MustCompile(`(?i)openai|claude`), "provider name"},
	{regexp.MustCompile(`(?i)large language model|modelo de linguagem`), "LLM self-reference"},
	{regexp.MustCompile(`(?i)system prompt|instruções do sistema|meu prompt`), "system prompt reference"},
	{regexp.MustCompile(`(?i)temperatura|temperature|max_tokens`), "generation parameters"},
	{regexp.MustCompile(`(?i)api key|chave de api`), "credentials"},
	{regexp.MustCompile(`(?i)sou uma ia|sou um modelo|como um assistente de ia`), "AI self-identification"},
	{regexp.MustCompile(`(?i)fui treinado|meu treinamento`), "training reference"},
	{regexp.MustCompile(`(?i)minhas instruções|minhas diretrizes`), "instruction leakage"},
	{regexp.MustCompile(`(?i)meu funcionamento|como funciono|minha programação|minha versão`), "meta-information"},
}

// screenAnswer checks generated text for system-information leakage.
// Returns false and the matched category when the answer must be replaced.
func screenAnswer(answer string) (bool, string) {
	for _, p := range leakPatterns {
		if p.pattern.MatchString(answer) {
			return false, p.reason
		}
	}
	return true, ""
}
