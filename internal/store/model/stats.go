package model

// Stats is a snapshot of table sizes exported as gauges.
type Stats struct {
	Voters       int64
	JobsByStatus map[string]int64
}
