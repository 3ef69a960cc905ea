package services

import (
	"orgnet/contexts/governance/election-engine/domain/entities"
)

// ValidateBallotRows checks the rows of one ballot the way the ledger schema
// does: one voter key of the election's kind, one contest, a first
// preference, and several rows only for approval and ranked ballots.
func ValidateBallotRows(election entities.Election, position string, rows []entities.Vote) error {
	if len(rows) == 0 {
		return invalid("ballot has no rows")
	}
	if len(rows) > 1 && !election.VotingMethod.AllowsMultipleRows() {
		return invalid("%s ballots carry one row", election.VotingMethod)
	}
	first := rows[0]
	hasFirst := false
	for _, row := range rows {
		key := row.Key()
		if !key.Valid() {
			return invalid("exactly one of voter_id and voter_hash must be set")
		}
		if election.Anonymous != key.Anonymous() {
			return invalid("voter key does not match election anonymity")
		}
		if row.ElectionID != election.ElectionID || row.Position != position {
			return invalid("ballot rows must share one contest")
		}
		if key != first.Key() || row.BallotID != first.BallotID {
			return invalid("ballot rows must share one voter")
		}
		if row.Rank < 1 {
			return invalid("rank must be at least 1")
		}
		if row.Rank == 1 {
			hasFirst = true
		}
	}
	if !hasFirst {
		return invalid("ballot has no first preference")
	}
	return nil
}
