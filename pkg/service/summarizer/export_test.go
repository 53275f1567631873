package summarizer

// BuildUserPrompt is exported for testing
var BuildUserPrompt = buildUserPrompt

// BuildResponseSchema is exported for testing
var BuildResponseSchema = buildResponseSchema
