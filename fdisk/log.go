package fdisk

import (
	"github.com/sirupsen/logrus"
)

// Info levels. Errors are always logged.
const (
	LevelWarn  uint32 = 1
	LevelInfo  uint32 = 2
	LevelTrace uint32 = 3
)

func (d *Disk) segLog(sc *segment) logrus.FieldLogger {
	return d.log.WithFields(logrus.Fields{
		"device":  sc.device,
		"segment": sc.index,
	})
}

func (d *Disk) pageLog(sc *segment, page uint32) logrus.FieldLogger {
	return d.log.WithFields(logrus.Fields{
		"device":  sc.device,
		"segment": sc.index,
		"page":    page,
	})
}

func (d *Disk) warnf(l logrus.FieldLogger, format string, args ...interface{}) {
	if d.infoLevel >= LevelWarn {
		l.Warnf(format, args...)
	}
}

func (d *Disk) infof(l logrus.FieldLogger, format string, args ...interface{}) {
	if d.infoLevel >= LevelInfo {
		l.Infof(format, args...)
	}
}

// tracef goes out at logrus debug level so a logger left at the
// default Info level stays quiet even with tracing on.
func (d *Disk) tracef(l logrus.FieldLogger, format string, args ...interface{}) {
	if d.infoLevel >= LevelTrace {
		l.Debugf(format, args...)
	}
}
