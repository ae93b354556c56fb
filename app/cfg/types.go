package cfg

type Cfg struct {
	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Home coordinates distances are computed against
	HomeLatitude  float64
	HomeLongitude float64

	// Application configuration
	WatchesDir string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
