package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"
)

// maxLogRollMB bounds each rotated log file, matching the small,
// fixed roll size a long-running node process typically uses.
const maxLogRollMB = 10

// SetupLogging opens (creating parent directories as needed) a
// rotating log file under dataDir/logs and returns a btclog.Logger
// backed by it plus a closer the caller should defer. This is the
// ambient logging bootstrap every HashCredit component's package-level
// `log` variable is pointed at via each package's UseLogger setter,
// following the teacher's btclog.Logger convention.
func SetupLogging(dataDir, subsystem string) (btclog.Logger, io.Closer, error) {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return nil, nil, err
	}

	r, err := rotator.New(filepath.Join(logDir, "hashcredit.log"), maxLogRollMB*1024, false, 3)
	if err != nil {
		return nil, nil, err
	}

	backend := btclog.NewBackend(r)
	logger := backend.Logger(subsystem)
	logger.SetLevel(btclog.LevelInfo)
	return logger, r, nil
}
