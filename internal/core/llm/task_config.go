package llm

// TaskType identifies the type of LLM task.
type TaskType string

// Task type constants.
const (
	TaskTypeClassify TaskType = "classify"
	TaskTypeAnnotate TaskType = "annotate"
)

// ProviderModel specifies a provider and model combination.
type ProviderModel struct {
	Provider ProviderName
	Model    string
}

// TaskProviderChain defines the provider/model fallback chain for a task.
type TaskProviderChain struct {
	Default   ProviderModel
	Fallbacks []ProviderModel
}

// DefaultTaskConfig returns the default provider chain per task.
func DefaultTaskConfig() map[TaskType]TaskProviderChain {
	return map[TaskType]TaskProviderChain{
		// Classification is high-volume fact extraction; cheap models first.
		TaskTypeClassify: {
			Default: ProviderModel{Provider: ProviderOpenAI, Model: ModelGPT4oMini},
			Fallbacks: []ProviderModel{
				{Provider: ProviderAnthropic, Model: ModelClaudeHaiku},
				{Provider: ProviderGoogle, Model: ModelGeminiFlashLite},
			},
		},

		// Annotation batches are small but need longer reasoning.
		TaskTypeAnnotate: {
			Default: ProviderModel{Provider: ProviderOpenAI, Model: ModelGPT4o},
			Fallbacks: []ProviderModel{
				{Provider: ProviderAnthropic, Model: ModelClaudeSonnet},
				{Provider: ProviderGoogle, Model: ModelGeminiFlashLite},
			},
		},
	}
}

// GetProviderChain returns the ordered list of provider/model combinations for a task.
func (tc TaskProviderChain) GetProviderChain() []ProviderModel {
	chain := make([]ProviderModel, 0, 1+len(tc.Fallbacks))
	chain = append(chain, tc.Default)
	chain = append(chain, tc.Fallbacks...)

	return chain
}
