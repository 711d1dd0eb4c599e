package version

// Build variables set via ldflags, e.g.
// -X 'github.com/systragroup/SG-DataDashboard/pkg/version.Version=v1.0.0'
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Info returns build information in a structured format
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
}

// Get returns the current build information
func Get() Info {
	return Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
	}
}

// String formats the build information on one line.
func (i Info) String() string {
	return i.Version + " (" + i.CommitHash + ", built " + i.BuildDate + ")"
}
