package services

import (
	"sort"

	"github.com/google/uuid"

	"alfredoptarigan/cv-ranker/internal/models"
)

// RankingTable is an immutable list of rows sorted by score descending, ties
// kept in upload order.
type RankingTable struct {
	rows []models.RankingRow
}

// NewRankingTable sorts a copy of rows.
func NewRankingTable(rows []models.RankingRow) *RankingTable {
	sorted := make([]models.RankingRow, len(rows))
	copy(sorted, rows)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Order < sorted[j].Order
	})

	return &RankingTable{rows: sorted}
}

// BuildRankingTable joins summaries and scores on the candidate ID. A summary
// without a score, or a score without a summary, is left out of the table;
// the number of such rows is returned so callers can report it.
func BuildRankingTable(summaries []models.CandidateSummary, scores map[uuid.UUID]float64) (*RankingTable, int) {
	rows := make([]models.RankingRow, 0, len(summaries))
	matched := make(map[uuid.UUID]struct{}, len(summaries))
	dropped := 0

	for _, s := range summaries {
		score, ok := scores[s.CandidateID]
		if !ok {
			dropped++
			continue
		}
		if _, dup := matched[s.CandidateID]; dup {
			dropped++
			continue
		}
		matched[s.CandidateID] = struct{}{}

		rows = append(rows, models.RankingRow{
			CandidateID: s.CandidateID,
			Order:       s.Order,
			Name:        s.ApplicantName,
			Filename:    s.SourceFilename,
			Summary:     s.SummaryText,
			SummaryHTML: s.SummaryHTML,
			Score:       score,
			Degraded:    s.Degraded,
		})
	}

	dropped += len(scores) - len(matched)

	return NewRankingTable(rows), dropped
}

// BuildRankingTableFromColumns zips parallel columns by position, truncating
// to the shortest column. Only use it for data that was already correlated,
// such as a re-imported export.
func BuildRankingTableFromColumns(names, filenames, summaries []string, scores []float64) *RankingTable {
	n := min(len(names), len(filenames), len(summaries), len(scores))

	rows := make([]models.RankingRow, n)
	for i := 0; i < n; i++ {
		rows[i] = models.RankingRow{
			CandidateID: uuid.New(),
			Order:       i,
			Name:        names[i],
			Filename:    filenames[i],
			Summary:     summaries[i],
			Score:       scores[i],
		}
	}

	return NewRankingTable(rows)
}

func (t *RankingTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Rows returns a copy of the sorted rows.
func (t *RankingTable) Rows() []models.RankingRow {
	if t == nil {
		return nil
	}
	out := make([]models.RankingRow, len(t.rows))
	copy(out, t.rows)
	return out
}

// Filter keeps rows with score >= minScore, then the first maxResults of
// them. maxResults <= 0 disables the cap. The receiver is already sorted, so
// a late upload with a high score is never cut by the cap.
func (t *RankingTable) Filter(minScore float64, maxResults int) *RankingTable {
	if t == nil {
		return &RankingTable{}
	}

	kept := make([]models.RankingRow, 0, len(t.rows))
	for _, row := range t.rows {
		if row.Score < minScore {
			continue
		}
		kept = append(kept, row)
		if maxResults > 0 && len(kept) == maxResults {
			break
		}
	}

	return &RankingTable{rows: kept}
}
