package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	Port             string
	BakeryURL        string
	SourcesDir       string
	WorkerCount      int
	DefaultSleep     int64 // ms, scheduler sleep when no source is due
	RefreshCooldown  int64 // ms, safety margin added to the computed sleep
	DefaultItemLimit int
	RefreshFrequency int64 // ms, cadence assigned to lazily created sources
	FetchTimeout     int   // seconds

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
