package sqlpoolcmd

import (
	"go.uber.org/zap"
)

func newLogger(fl Flags) (*zap.Logger, error) {
	var conf zap.Config
	if fl.Bool("dev") {
		conf = zap.NewDevelopmentConfig()
	} else {
		conf = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(fl.String("log-level"))
	if err != nil {
		return nil, err
	}
	conf.Level = level

	return conf.Build()
}
