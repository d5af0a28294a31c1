package common

// PackageName identifies this service in metrics and logs.
const PackageName = "counterapp"

// Version is set at build time through ldflags:
//
//	go build -ldflags "-X github.com/linqra/counterapp/common.Version=v1.2.3"
var Version = "dev"
