package log

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var installHook sync.Once

func NewLogger(tag string) *logrus.Entry {
	installHook.Do(func() {
		logrus.AddHook(new(TaggedHook))
	})
	return logrus.NewEntry(logrus.StandardLogger()).WithField("tag", tag)
}

// SetLevel configures the standard logger used by NewLogger.
func SetLevel(level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(parsed)
	return nil
}

type TaggedHook struct{}

func (h *TaggedHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *TaggedHook) Fire(entry *logrus.Entry) error {
	if tagObj, loaded := entry.Data["tag"]; loaded {
		tag, isString := tagObj.(string)
		if !isString {
			return nil
		}
		delete(entry.Data, "tag")
		entry.Message = strings.ReplaceAll(entry.Message, tag+": ", "")
		entry.Message = "[" + tag + "]: " + entry.Message
	}
	return nil
}
