package prom

import (
	"gfx.cafe/open/gotoprom"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gotoprom.MustInit(&Query, "sqlpool_query", prometheus.Labels{})
}

type QueryLabels struct {
	Type string `label:"type"`
}

var Query struct {
	Execution func(QueryLabels) prometheus.Histogram `name:"execution_ms" buckets:"0.1,0.5,1,5,10,30,75,150,300,500,1000,2000,5000,10000" help:"ms a profiled statement took to execute"`
	Errors    func(QueryLabels) prometheus.Counter   `name:"errors" help:"profiled statements that returned an error"`
}
