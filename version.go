package stagehand

// Version is the release of the module, overridden at build time with
// -ldflags "-X github.com/aretw0/stagehand.Version=v1.2.3".
var Version = "dev"
