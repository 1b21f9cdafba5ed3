package payout

// PeerClient is the coordinator's outbound view of one authority,
// used in Step B to gather consensus and in Step E to drive the
// multi-sign chain. Implemented by internal/httpapi's client side.
type PeerClient interface {
	ComputePendingPayouts(processDeposits, processWithdrawals bool) (PendingPayouts, error)
	ComputeUnspent() ([]UnspentOutput, error)
	// ApprovePayouts and ApprovePayoutsTest hand the in-progress
	// transaction to one authority: it validates the batch, co-signs
	// with its own wallet key, and returns the next link in the
	// chain plus whether the daemon now considers the transaction
	// completely signed (spec §4.9 step E).
	ApprovePayouts(req ApprovalRequest) (approvalChain string, complete bool, err error)
	ApprovePayoutsTest(req ApprovalRequest) (approvalChain string, complete bool, err error)
}

// GatherConsensus is Step B: query every authority (the coordinator's
// own computation counts as one of them) and intersect each of the
// three payout lists and the unspent list element-wise, so only
// records every authority agrees on survive into the batch (spec §4.9
// step B - "elects the largest safe batch").
func GatherConsensus(replies []PendingPayouts, unspentReplies [][]UnspentOutput) (PendingPayouts, []UnspentOutput) {
	return intersectPendingPayouts(replies), intersectUnspent(unspentReplies)
}

func intersectPendingPayouts(replies []PendingPayouts) PendingPayouts {
	if len(replies) == 0 {
		return PendingPayouts{}
	}
	var out PendingPayouts
	for _, d := range replies[0].DepositTaxPayouts {
		if allContainDepositTax(replies, d) {
			out.DepositTaxPayouts = append(out.DepositTaxPayouts, d)
		}
	}
	for i, w := range replies[0].WithdrawalPayouts {
		t := replies[0].WithdrawalTaxPayouts[i]
		if allContainWithdrawalPair(replies, w, t) {
			out.WithdrawalPayouts = append(out.WithdrawalPayouts, w)
			out.WithdrawalTaxPayouts = append(out.WithdrawalTaxPayouts, t)
		}
	}
	return out
}

func allContainDepositTax(replies []PendingPayouts, want DepositTaxPayout) bool {
	for _, r := range replies {
		found := false
		for _, d := range r.DepositTaxPayouts {
			if d == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func allContainWithdrawalPair(replies []PendingPayouts, wantW WithdrawalPayout, wantT WithdrawalTaxPayout) bool {
	for _, r := range replies {
		found := false
		for i, w := range r.WithdrawalPayouts {
			if w == wantW && i < len(r.WithdrawalTaxPayouts) && r.WithdrawalTaxPayouts[i] == wantT {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func intersectUnspent(replies [][]UnspentOutput) []UnspentOutput {
	if len(replies) == 0 {
		return nil
	}
	var out []UnspentOutput
	for _, u := range replies[0] {
		found := true
		for _, r := range replies[1:] {
			if !containsUnspent(r, u) {
				found = false
				break
			}
		}
		if found {
			out = append(out, u)
		}
	}
	return out
}

func containsUnspent(list []UnspentOutput, want UnspentOutput) bool {
	for _, u := range list {
		if u == want {
			return true
		}
	}
	return false
}
