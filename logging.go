package odx

import "github.com/sirupsen/logrus"

// _lg is the passive log sink spec.md §7 requires for warnings that must
// not fail the current operation (non-zero Reserved bits on decode, an
// inherited short name renamed during inheritance flattening). Prefix-tree
// rebuilds and each document's MODEL-VERSION are logged at debug level.
// Host applications may replace it with their own configured logger.
var _lg = logrus.New()

func SetLogger(lg *logrus.Logger) {
	if lg != nil {
		_lg = lg
	}
}

func warnNonZeroReserved(shortName string, value uint64) {
	_lg.Warnf("reserved parameter %q decoded non-zero value %#x", shortName, value)
}

func warnRename(layer, from, to string) {
	_lg.Warnf("layer %q: inherited short name %q renamed to %q", layer, from, to)
}

func warnTrieRebuild(layer string, serviceCount int) {
	_lg.Debugf("layer %q: rebuilding prefix tree over %d services", layer, serviceCount)
}

func debugModelVersion(docName, version string) {
	_lg.Debugf("document %q declares MODEL-VERSION %q", docName, version)
}
