package version

// Overridden at build time with -ldflags "-X clubhub-go/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
)
