package ingest

import "github.com/coreledger/sqlindexer/internal/model"

// NewIDDiscovery is what the ingestion pipeline needs from a decoded
// operation to run the new-id walk of §4.7. A real node-source
// implementation decodes each operation kind into this shape before
// calling PreOperation; decoding itself is out of scope here (see
// internal/nodesource).
type NewIDDiscovery struct {
	OpTypeID        int32
	NewAccountName  string // set for account-create / account-create-with-delegation / create-claimed-account
	PowWorkerName   string // set for pow, if the worker account is not yet known
	Pow2Accounts    []string
	CommentPermlink string // set for comment, reused on edit
	ImpactedAccounts []string
}

// discoverNewIDs runs the per-kind new-id discovery walk described in
// §4.7 against caches, assigning ids for anything genuinely new. It
// returns the freshly assigned accounts/permlinks (empty if none),
// which the caller pushes into either the volatile store (live mode) or
// directly into the batch buffer (replay mode).
func discoverNewIDs(caches *Caches, d NewIDDiscovery) (newAccounts []AssignedAccount, newPermlinks []AssignedPermlink) {
	switch d.OpTypeID {
	case model.OpAccountCreate, model.OpAccountCreateWithDelegation, model.OpCreateClaimedAccount:
		if d.NewAccountName != "" {
			if id, created := caches.AssignAccount(d.NewAccountName); created {
				newAccounts = append(newAccounts, AssignedAccount{ID: id, Name: d.NewAccountName})
			}
		}

	case model.OpPow:
		if d.PowWorkerName != "" {
			if _, known := caches.AccountID(d.PowWorkerName); !known {
				if id, created := caches.AssignAccount(d.PowWorkerName); created {
					newAccounts = append(newAccounts, AssignedAccount{ID: id, Name: d.PowWorkerName})
				}
			}
		}

	case model.OpPow2:
		for _, name := range d.Pow2Accounts {
			if _, known := caches.AccountID(name); known {
				continue
			}
			if id, created := caches.AssignAccount(name); created {
				newAccounts = append(newAccounts, AssignedAccount{ID: id, Name: name})
			}
		}

	case model.OpComment:
		if d.CommentPermlink != "" {
			if id, created := caches.AssignPermlink(d.CommentPermlink); created {
				newPermlinks = append(newPermlinks, AssignedPermlink{ID: id, Text: d.CommentPermlink})
			}
		}
	}

	return newAccounts, newPermlinks
}
