package filters

import "github.com/sirupsen/logrus"

// logger returns an entry tagged with this package and the calling
// function, plus any extra fields.
func logger(function string, fields ...logrus.Fields) *logrus.Entry {
	f := logrus.Fields{
		"package":  "filters",
		"function": function,
	}
	for _, extra := range fields {
		for k, v := range extra {
			f[k] = v
		}
	}
	return logrus.WithFields(f)
}
