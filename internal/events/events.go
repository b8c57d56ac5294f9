package events

var (
	ScrapeFinishedTopic = "ScrapeFinishedEvent"
	CompanyDeletedTopic = "CompanyDeletedEvent"
)

// ScrapeFinished is published when a scrape session reaches a terminal
// state. AddedJobsByCompany seeds the auto-match run and lets the match
// queue mirror its outcome back into the scrape logs.
type ScrapeFinished struct {
	SessionID          string
	Trigger            string
	Stopped            bool
	AddedJobIDs        []int
	AddedJobsByCompany map[int][]int
}

type CompanyDeleted struct {
	CompanyID int
}
