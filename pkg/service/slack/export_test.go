package slack

// BuildThreadBlocks is exported for testing
var BuildThreadBlocks = buildThreadBlocks
