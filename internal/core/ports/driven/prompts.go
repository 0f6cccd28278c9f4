package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next
	// access. Useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptSystemGrounded introduces the retrieved excerpts and the
	// citation convention. No format placeholders.
	PromptSystemGrounded = "system_grounded"

	// PromptSystemUngrounded replaces the excerpt instructions when
	// retrieval found nothing relevant. No format placeholders.
	PromptSystemUngrounded = "system_ungrounded"
)

// PromptStoreAware is an optional interface for components that can use
// custom prompts. If no store is set, hardcoded defaults apply.
type PromptStoreAware interface {
	// SetPromptStore sets the prompt store for loading customisable
	// prompts.
	SetPromptStore(store PromptStore)
}
