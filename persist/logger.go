// Package persist holds the small ambient pieces every other package
// leans on for durability and observability concerns that spec.md treats
// as external: structured logging here, the ledger's own transactional
// storage lives in the ledger package.
package persist

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logrus logger writing text-formatted lines to w,
// tagged with the given subsystem name. Every long-running subsystem in
// this core (wallet, ledger, queue, sync, wsclient) gets its own named
// logger from this constructor, the way the teacher gives every module its
// own *persist.Logger.
func NewLogger(w io.Writer, subsystem string) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l.WithField("subsystem", subsystem)
}

// NewFileLogger opens (creating if necessary) a log file at path and
// returns a logger plus a closer the caller must invoke on shutdown.
func NewFileLogger(path, subsystem string) (*logrus.Entry, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(f, subsystem), f, nil
}
