package model

// OperationType names one entry of the static, build-time operation
// catalog. The chain's operation kinds are fixed at compile time; this
// catalog is used once at startup to populate hive_operation_types
// (INSERT ... ON CONFLICT DO NOTHING) and is the table the new-id walk
// (internal/ingest/newid.go) and the virtual-op filter bit-shift
// (internal/query/sqlfuncs.go) both key off of.
type OperationType struct {
	ID        int32
	Name      string
	IsVirtual bool
}

// OperationCatalog is the finite, ordered set of operation kinds known at
// build time. Index == ID; non-virtual kinds come first, matching how the
// source chain's operation variant is declared.
var OperationCatalog = []OperationType{
	{0, "vote_operation", false},
	{1, "comment_operation", false},
	{2, "transfer_operation", false},
	{3, "transfer_to_vesting_operation", false},
	{4, "withdraw_vesting_operation", false},
	{5, "limit_order_create_operation", false},
	{6, "limit_order_cancel_operation", false},
	{7, "feed_publish_operation", false},
	{8, "convert_operation", false},
	{9, "account_create_operation", false},
	{10, "account_update_operation", false},
	{11, "witness_update_operation", false},
	{12, "account_witness_vote_operation", false},
	{13, "account_witness_proxy_operation", false},
	{14, "pow_operation", false},
	{15, "custom_operation", false},
	{16, "report_over_production_operation", false},
	{17, "delete_comment_operation", false},
	{18, "custom_json_operation", false},
	{19, "comment_options_operation", false},
	{20, "set_withdraw_vesting_route_operation", false},
	{21, "limit_order_create2_operation", false},
	{22, "claim_account_operation", false},
	{23, "create_claimed_account_operation", false},
	{24, "request_account_recovery_operation", false},
	{25, "recover_account_operation", false},
	{26, "change_recovery_account_operation", false},
	{27, "escrow_transfer_operation", false},
	{28, "escrow_dispute_operation", false},
	{29, "escrow_release_operation", false},
	{30, "pow2_operation", false},
	{31, "escrow_approve_operation", false},
	{32, "transfer_to_savings_operation", false},
	{33, "transfer_from_savings_operation", false},
	{34, "cancel_transfer_from_savings_operation", false},
	{35, "custom_binary_operation", false},
	{36, "decline_voting_rights_operation", false},
	{37, "reset_account_operation", false},
	{38, "set_reset_account_operation", false},
	{39, "claim_reward_balance_operation", false},
	{40, "delegate_vesting_shares_operation", false},
	{41, "account_create_with_delegation_operation", false},
	{42, "witness_set_properties_operation", false},
	{43, "account_update2_operation", false},
	{44, "create_proposal_operation", false},
	{45, "update_proposal_votes_operation", false},
	{46, "remove_proposal_operation", false},
	{47, "update_proposal_operation", false},
	{48, "producer_reward_operation", true},
	{49, "fill_vesting_withdraw_operation", true},
	{50, "shutdown_witness_operation", true},
	{51, "hardfork_operation", true},
	{52, "comment_payout_update_operation", true},
	{53, "return_vesting_delegation_operation", true},
	{54, "comment_benefactor_reward_operation", true},
	{55, "clear_null_account_balance_operation", true},
	{56, "proposal_pay_operation", true},
	{57, "dhf_funding_operation", true},
	{58, "expired_account_notification_operation", true},
	{59, "changed_recovery_account_operation", true},
	{60, "delayed_voting_operation", true},
	{61, "consolidate_treasury_balance_operation", true},
	{62, "effective_comment_vote_operation", true},
	{63, "ineffective_delete_comment_operation", true},
	{64, "dhf_conversion_operation", true},
	{65, "limit_order_cancelled_operation", true},
	{66, "producer_missed_operation", true},
	{67, "proposal_fee_operation", true},
	{68, "escrow_approved_operation", true},
	{69, "escrow_rejected_operation", true},
}

// IsVirtual reports whether the operation kind identified by id is virtual.
// Returns false for unknown ids.
func IsVirtual(opTypeID int32) bool {
	if opTypeID < 0 || int(opTypeID) >= len(OperationCatalog) {
		return false
	}
	return OperationCatalog[opTypeID].IsVirtual
}

// Kinds contributing new account names, per spec.md §4.7.
const (
	OpAccountCreate               = 9
	OpAccountCreateWithDelegation = 41
	OpCreateClaimedAccount        = 23
	OpPow                         = 14
	OpPow2                        = 30
	OpComment                     = 1
)
