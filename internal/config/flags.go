package config

import (
	"flag"
	"os"
	"time"

	"github.com/fieldops/fieldsync/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address of the backend server (default from Config)
//	-d string   path to the local database file
//	-s int      sync interval in seconds
//	-i int      online check interval in seconds
//	-r int      retention window for synced records, in days
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.Pick, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.Pick(os.Args[1:], "-a", "-d", "-s", "-i", "-r")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address of the backend server")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local database file")
	syncInterval := fs.Int("s", int(cfg.SyncInterval.Seconds()), "sync interval (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.IntVar(&cfg.RetentionDays, "r", cfg.RetentionDays, "retention window for synced records (in days)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SyncInterval = time.Duration(*syncInterval) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
}
