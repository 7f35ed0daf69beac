package agents

import (
	"testing"

	"github.com/netopshub/netopshub/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposeFixCreatesAwaitingApprovalProposal(t *testing.T) {
	h := NewRemediationHandler()
	task := h.Process(newTask("remediation", "propose_fix", map[string]interface{}{
		"issue": "bgp_flapping", "device_id": "r1",
	}))
	require.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, "awaiting_approval", task.Output["status"])
	proposal := task.Output["proposal"].(model.RemediationProposal)
	assert.Equal(t, model.RiskMedium, proposal.Risk)
	assert.False(t, proposal.Approved)
}

func TestProposeFixUnknownIssueUsesFallbackTemplate(t *testing.T) {
	h := NewRemediationHandler()
	task := h.Process(newTask("remediation", "propose_fix", map[string]interface{}{
		"issue": "mystery_issue", "device_id": "r1",
	}))
	proposal := task.Output["proposal"].(model.RemediationProposal)
	assert.Equal(t, model.RiskLow, proposal.Risk)
	assert.Contains(t, proposal.ConfigCommands[0], "no automated fix")
}

func TestApproveProposalMarksApprovedAndRecordsApprover(t *testing.T) {
	h := NewRemediationHandler()
	proposeTask := h.Process(newTask("remediation", "propose_fix", map[string]interface{}{
		"issue": "bgp_flapping", "device_id": "r1",
	}))
	proposalID := proposeTask.Output["proposal"].(model.RemediationProposal).ID

	task := h.Process(newTask("remediation", "approve", map[string]interface{}{
		"proposal_id": proposalID, "approved_by": "netops-oncall",
	}))
	require.Equal(t, model.TaskCompleted, task.Status)
	assert.Equal(t, "approved", task.Output["status"])

	listTask := h.Process(newTask("remediation", "list_proposals", nil))
	proposals := listTask.Output["proposals"].([]model.RemediationProposal)
	require.Len(t, proposals, 1)
	assert.True(t, proposals[0].Approved)
	assert.Equal(t, "netops-oncall", proposals[0].ApprovedBy)
	assert.Equal(t, 0, listTask.Output["pending"])
}

func TestApproveUnknownProposalReturnsNotFound(t *testing.T) {
	h := NewRemediationHandler()
	task := h.Process(newTask("remediation", "approve", map[string]interface{}{"proposal_id": "ghost"}))
	assert.Equal(t, "not_found", task.Output["status"])
}

func TestRemediationUnknownTaskKindFails(t *testing.T) {
	h := NewRemediationHandler()
	task := h.Process(newTask("remediation", "bogus", nil))
	assert.Equal(t, model.TaskFailed, task.Status)
}

func TestRemediationChatGeneratesBGPProposal(t *testing.T) {
	h := NewRemediationHandler()
	response := h.Chat("please fix bgp flapping now", nil)
	assert.Contains(t, response, "BGP")
	assert.Contains(t, response, "MEDIUM RISK")
}

func TestRemediationChatReportsNoPendingWhenEmpty(t *testing.T) {
	h := NewRemediationHandler()
	response := h.Chat("show pending proposals", nil)
	assert.Equal(t, "No pending remediation proposals.", response)
}

func TestRemediationChatListsPendingAfterProposal(t *testing.T) {
	h := NewRemediationHandler()
	h.Chat("fix bgp issue", nil)
	response := h.Chat("show pending proposals", nil)
	assert.Contains(t, response, "1 Pending Proposals")
}
