package version

import "fmt"

// Build variables injected at link time:
// -X 'github.com/k2brd/k2brd/pkg/version.Version=v1.0.0'
// -X 'github.com/k2brd/k2brd/pkg/version.CommitHash=abc123'
// -X 'github.com/k2brd/k2brd/pkg/version.BuildDate=2024-01-01T00:00:00Z'
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Info is the build information reported by the health endpoint and the CLI.
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
}

func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildDate)
}
