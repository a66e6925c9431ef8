package chat

// TargetModel is the minimal triple the transformer needs to decide
// same-model-vs-different-model policy without holding a full model
// descriptor.
type TargetModel struct {
	API      string
	Provider string
	ModelID  string
}

// SameModelAs reports whether an assistant message was produced by the exact
// (provider, api, model) triple this TargetModel names; the same-model
// replay condition used throughout the transformer.
func (t TargetModel) SameModelAs(msg AssistantMessage) bool {
	return t.API == msg.API && t.Provider == msg.Provider && t.ModelID == msg.ModelID
}
