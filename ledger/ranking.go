package ledger

import "sort"

type RankingEntry struct {
	ID      string  `json:"id"`
	Balance float64 `json:"balance"`
}

// Ranking is kept sorted by balance, highest first, one entry per id.
type Ranking []RankingEntry

// Upsert sets the balance for id, adding it if missing, and re-sorts.
func (r Ranking) Upsert(id string, balance float64) Ranking {
	found := false
	out := r[:0:0]
	for _, e := range r {
		if e.ID == id {
			if found {
				continue
			}
			e.Balance = balance
			found = true
		}
		out = append(out, e)
	}
	if !found {
		out = append(out, RankingEntry{ID: id, Balance: balance})
	}
	out.sort()
	return out
}

// Rank returns the 1-based place of id, or 0 when absent.
func (r Ranking) Rank(id string) int {
	for i, e := range r {
		if e.ID == id {
			return i + 1
		}
	}
	return 0
}

func (r Ranking) sort() {
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Balance != r[j].Balance {
			return r[i].Balance > r[j].Balance
		}
		return r[i].ID < r[j].ID
	})
}
