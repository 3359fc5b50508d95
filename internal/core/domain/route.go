package domain

// Known model keys.
const (
	ModelQwenInternal = "qwen-internal"
	ModelQwenPublic   = "qwen-public"
	ModelDeepSeek     = "deepseek"

	// DefaultModelKey is used when the caller omits the key or sends an
	// unknown one.
	DefaultModelKey = ModelQwenPublic
)

// Route is the provider endpoint a model key resolves to.
type Route struct {
	Key     string
	BaseURL string
	APIKey  string
	Model   string
	// Public marks the hosted endpoint whose missing API key is detected
	// before any request goes out.
	Public bool
}
