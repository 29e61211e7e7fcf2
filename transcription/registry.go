package transcription

import "github.com/kbukum/transcriptcheck/provider"

// NewRegistry creates a registry for transcription backends. Backends
// register themselves by name, e.g. reg.RegisterFactory("openai", openai.Factory()).
func NewRegistry() *provider.Registry[Provider] {
	return provider.NewRegistry[Provider]()
}
