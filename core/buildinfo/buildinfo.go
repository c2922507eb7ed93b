package buildinfo

// Set at build time, for example:
//
//	go build -ldflags "-X 'github.com/m3rciful/datepoll/core/buildinfo.Version=v0.3.0' \
//	  -X 'github.com/m3rciful/datepoll/core/buildinfo.Commit=$(git rev-parse --short HEAD)'"
var (
	// Version reports the release tag of the binary.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// String renders version, commit and date on one line.
func String() string {
	s := Version + " (" + Commit
	if Date != "" {
		s += ", " + Date
	}
	return s + ")"
}
