// Package assignment contains the pure business rules for assignment and
// consultant lifecycle operations.
// Guards are pure functions that evaluate preconditions without side effects.
package assignment

import "fmt"

// Assignment statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Assignment methods.
const (
	MethodRoundRobin      = "round_robin"
	MethodManual          = "manual"
	MethodManagerOverride = "manager_override"
	MethodReassignment    = "reassignment"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// TransitionContext provides context for assignment status transition guards.
type TransitionContext struct {
	AssignmentID  string
	CurrentStatus string
	TargetStatus  string
}

// CanTransition evaluates whether an assignment may move to TargetStatus.
// Rules:
// - Only active assignments can change status
// - Target must be completed or cancelled
func CanTransition(ctx TransitionContext) GuardResult {
	if ctx.TargetStatus != StatusCompleted && ctx.TargetStatus != StatusCancelled {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("invalid target status %q (valid: completed, cancelled)", ctx.TargetStatus),
		}
	}

	if ctx.CurrentStatus != StatusActive {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("assignment %s is %s; only active assignments can be %s", ctx.AssignmentID, ctx.CurrentStatus, ctx.TargetStatus),
		}
	}

	return GuardResult{Allowed: true}
}

// DeactivateContext provides context for consultant deactivation guards.
type DeactivateContext struct {
	ConsultantID          string
	Active                bool
	ActiveAssignmentCount int
}

// CanDeactivate evaluates whether a consultant can be deactivated.
// Rules:
// - Consultant must currently be active
// - Consultant must have no open assignments
func CanDeactivate(ctx DeactivateContext) GuardResult {
	if !ctx.Active {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("consultant %s is already inactive", ctx.ConsultantID),
		}
	}

	if ctx.ActiveAssignmentCount > 0 {
		return GuardResult{
			Allowed: false,
			Reason: fmt.Sprintf("consultant %s has %d active assignment(s); complete, cancel or reassign them first (or use force-remove)",
				ctx.ConsultantID, ctx.ActiveAssignmentCount),
		}
	}

	return GuardResult{Allowed: true}
}

// ReassignContext provides context for reassignment guards.
type ReassignContext struct {
	AssignmentID string
	Status       string
	Reason       string
}

// CanReassign evaluates whether an assignment can be superseded.
// Rules:
// - Assignment must be active
// - A reason is required
func CanReassign(ctx ReassignContext) GuardResult {
	if ctx.Status != StatusActive {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("can only reassign active assignments (%s is %s)", ctx.AssignmentID, ctx.Status),
		}
	}

	if ctx.Reason == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "reassignment reason is required",
		}
	}

	return GuardResult{Allowed: true}
}

// ManualContext provides context for manual assignment guards.
type ManualContext struct {
	ConsultantID     string
	ConsultantActive bool
	Method           string
	ManualReason     string
}

// CanAssignManually evaluates whether a manual assignment may be created.
// Rules:
// - Method must be manual or manager_override
// - Target consultant must be active
// - Manager overrides require a reason
func CanAssignManually(ctx ManualContext) GuardResult {
	if ctx.Method != MethodManual && ctx.Method != MethodManagerOverride {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("invalid manual method %q (valid: manual, manager_override)", ctx.Method),
		}
	}

	if !ctx.ConsultantActive {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("consultant %s is not active", ctx.ConsultantID),
		}
	}

	if ctx.Method == MethodManagerOverride && ctx.ManualReason == "" {
		return GuardResult{
			Allowed: false,
			Reason:  "manager override requires a reason",
		}
	}

	return GuardResult{Allowed: true}
}

// IsValidMethod reports whether method is a known assignment method.
func IsValidMethod(method string) bool {
	switch method {
	case MethodRoundRobin, MethodManual, MethodManagerOverride, MethodReassignment:
		return true
	}
	return false
}
