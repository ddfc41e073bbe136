package output

import "github.com/tsinghua-fib-lab/agentsociety-highway/entity"

// NewStatsDocumentForTest 构造写入MongoDB的文档
func NewStatsDocumentForTest(run string, s entity.StatsSnapshot) any {
	return newStatsDocument(run, s)
}
