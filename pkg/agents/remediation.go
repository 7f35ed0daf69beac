package agents

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/netopshub/netopshub/pkg/model"
)

// playbook describes a known-issue remediation template with its
// config commands and matched rollback plan.
type playbook struct {
	title            string
	description      string
	configCommands   []string
	rollbackCommands []string
	risk             model.RiskLevel
}

var remediationPlaybooks = map[string]playbook{
	"bgp_flapping": {
		title: "Stabilize BGP session with dampening and BFD",
		description: "BGP flapping detected, likely from physical layer instability. Apply " +
			"dampening to limit route churn and enable BFD for faster failure detection.",
		configCommands: []string{
			"router bgp 65001",
			" address-family ipv4 unicast",
			"  bgp dampening 15 750 2000 60",
			" neighbor 10.0.0.2 bfd",
			" neighbor 10.0.0.2 fall-over bfd",
		},
		rollbackCommands: []string{
			"router bgp 65001",
			" address-family ipv4 unicast",
			"  no bgp dampening",
			" no neighbor 10.0.0.2 bfd",
			" no neighbor 10.0.0.2 fall-over bfd",
		},
		risk: model.RiskMedium,
	},
	"compliance_failure": {
		title: "Harden device against baseline compliance failures",
		description: "Default SNMP community, missing password encryption, missing console " +
			"timeout, and missing VTY access control detected.",
		configCommands: []string{
			"service password-encryption",
			"no snmp-server community public",
			"snmp-server community N3tOps$ecure RO",
			"line con 0",
			" exec-timeout 5 0",
			"line vty 0 15",
			" access-class ACL_VTY in",
			" transport input ssh",
			"aaa new-model",
			"aaa authentication login default local",
		},
		rollbackCommands: []string{
			"no service password-encryption",
			"snmp-server community public RO",
			"no snmp-server community N3tOps$ecure",
			"line con 0",
			" no exec-timeout",
			"line vty 0 15",
			" no access-class ACL_VTY in",
			" transport input ssh telnet",
		},
		risk: model.RiskLow,
	},
}

// RemediationHandler generates configuration-change proposals that
// always require human approval before being considered executable.
type RemediationHandler struct {
	*agentBase
	mu        sync.Mutex
	proposals []model.RemediationProposal
}

// NewRemediationHandler creates a handler with an empty proposal log.
func NewRemediationHandler() *RemediationHandler {
	return &RemediationHandler{agentBase: newAgentBase("remediation", "Configuration change proposals with human approval gates")}
}

func generateProposal(issue, deviceID string) model.RemediationProposal {
	pb, ok := remediationPlaybooks[issue]
	if !ok {
		pb = playbook{
			title:            fmt.Sprintf("Remediation for %s", issue),
			description:      fmt.Sprintf("Auto-generated fix for %s", issue),
			configCommands:   []string{"! no automated fix available"},
			rollbackCommands: []string{"! no rollback needed"},
			risk:             model.RiskLow,
		}
	}
	return model.RemediationProposal{
		ID:               uuid.NewString(),
		DeviceID:         deviceID,
		Title:            pb.title,
		Description:      pb.description,
		ConfigCommands:   pb.configCommands,
		RollbackCommands: pb.rollbackCommands,
		Risk:             pb.risk,
		CreatedAt:        time.Now(),
	}
}

// Process dispatches propose_fix, approve, and list_proposals task kinds.
func (h *RemediationHandler) Process(task model.AgentTask) model.AgentTask {
	task.Status = model.TaskRunning

	switch task.Kind {
	case "propose_fix":
		issue := stringInput(task.Input, "issue", "")
		deviceID := stringInput(task.Input, "device_id", "")
		proposal := generateProposal(issue, deviceID)

		h.mu.Lock()
		h.proposals = append(h.proposals, proposal)
		h.mu.Unlock()

		return h.completeTask(task, map[string]interface{}{
			"proposal": proposal,
			"status":   "awaiting_approval",
		})

	case "approve":
		proposalID := stringInput(task.Input, "proposal_id", "")
		approvedBy := stringInput(task.Input, "approved_by", "admin")
		return h.completeTask(task, h.approveProposal(proposalID, approvedBy))

	case "list_proposals":
		h.mu.Lock()
		proposals := make([]model.RemediationProposal, len(h.proposals))
		copy(proposals, h.proposals)
		pending := 0
		for _, p := range proposals {
			if !p.Approved {
				pending++
			}
		}
		h.mu.Unlock()

		return h.completeTask(task, map[string]interface{}{
			"proposals": proposals,
			"pending":   pending,
		})

	default:
		return h.failUnknownKind(task)
	}
}

func (h *RemediationHandler) approveProposal(proposalID, approvedBy string) map[string]interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := range h.proposals {
		if h.proposals[i].ID == proposalID {
			h.proposals[i].Approved = true
			h.proposals[i].ApprovedBy = approvedBy
			return map[string]interface{}{
				"status":      "approved",
				"proposal_id": proposalID,
				"approved_by": approvedBy,
				"message":     fmt.Sprintf("proposal %q approved by %s", h.proposals[i].Title, approvedBy),
			}
		}
	}
	return map[string]interface{}{
		"status":  "not_found",
		"message": fmt.Sprintf("proposal %s not found", proposalID),
	}
}

func formatProposal(p model.RemediationProposal) string {
	commands := "  " + strings.Join(p.ConfigCommands, "\n  ")
	rollback := "  " + strings.Join(p.RollbackCommands, "\n  ")
	shortID := p.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}
	return fmt.Sprintf(
		"**Remediation Proposal** [%s RISK]\n\n**Title:** %s\n**Device:** %s\n**Description:** %s\n\n"+
			"**Proposed Changes:**\n```\n%s\n```\n\n**Rollback Plan:**\n```\n%s\n```\n\n"+
			"**Status:** Awaiting approval (ID: %s...)",
		strings.ToUpper(string(p.Risk)), p.Title, p.DeviceID, p.Description, commands, rollback, shortID,
	)
}

// Chat answers remediation chat queries, generating proposals for
// recognized issue keywords and reporting pending approvals.
func (h *RemediationHandler) Chat(message string, context map[string]interface{}) string {
	h.logMessage(model.RoleUser, message)

	lower := strings.ToLower(message)
	var response string
	switch {
	case strings.Contains(lower, "fix") && strings.Contains(lower, "bgp"):
		proposal := generateProposal("bgp_flapping", "router-core-1")
		h.mu.Lock()
		h.proposals = append(h.proposals, proposal)
		h.mu.Unlock()
		response = formatProposal(proposal)

	case strings.Contains(lower, "fix") && (strings.Contains(lower, "compliance") || strings.Contains(lower, "security")):
		proposal := generateProposal("compliance_failure", "switch-access-1")
		h.mu.Lock()
		h.proposals = append(h.proposals, proposal)
		h.mu.Unlock()
		response = formatProposal(proposal)

	case strings.Contains(lower, "pending") || strings.Contains(lower, "proposals"):
		h.mu.Lock()
		var pending []model.RemediationProposal
		for _, p := range h.proposals {
			if !p.Approved {
				pending = append(pending, p)
			}
		}
		h.mu.Unlock()

		if len(pending) == 0 {
			response = "No pending remediation proposals."
		} else {
			var b strings.Builder
			fmt.Fprintf(&b, "**%d Pending Proposals:**\n\n", len(pending))
			for _, p := range pending {
				fmt.Fprintf(&b, "- [%s] %s on %s\n", strings.ToUpper(string(p.Risk)), p.Title, p.DeviceID)
			}
			response = b.String()
		}

	default:
		response = "I generate configuration change proposals to fix network issues. All changes " +
			"require human approval before execution.\n\nTry:\n- \"Fix BGP flapping on router-core-1\"\n" +
			"- \"Fix compliance failures\"\n- \"Show pending proposals\""
	}

	h.logMessage(model.RoleAssistant, response)
	return response
}
