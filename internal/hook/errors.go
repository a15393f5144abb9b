// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hook

import (
	"github.com/samber/oops"
)

// Error codes attached to hook failures.
const (
	CodeExecutionFailed  = "HOOK_EXECUTION_FAILED"
	CodePanic            = "HOOK_PANIC"
	CodeTimeout          = "HOOK_TIMEOUT"
	CodeReservedName     = "HOOK_RESERVED_NAME"
	CodeInvalidManifest  = "HOOK_INVALID_MANIFEST"
	CodeNoIndex          = "HOOK_NO_INDEX"
	CodeIncompatible     = "HOOK_INCOMPATIBLE"
	CodeBadContribution  = "HOOK_BAD_CONTRIBUTION"
	CodeCompileFailed    = "HOOK_COMPILE_FAILED"
	CodeNoRuntime        = "HOOK_NO_RUNTIME"
	CodeNotCallable      = "HOOK_NOT_CALLABLE"
	CodeInvalidOption    = "HOOK_INVALID_OPTION"
	CodeDuplicateHook    = "HOOK_DUPLICATE"
	CodeInvalidHookName  = "HOOK_INVALID_NAME"
	CodeInvalidDirective = "HOOK_INVALID_DIRECTIVE"
)

// ErrReservedName reports a hook whose name is owned by the application.
func ErrReservedName(name string) error {
	return oops.In("hook").
		Code(CodeReservedName).
		With("hook", name).
		Errorf("context key %q is owned by the application", name)
}

// ErrPanic reports a hook entry point that panicked.
func ErrPanic(id string, v any) error {
	return oops.In("hook").
		Code(CodePanic).
		With("hook", id).
		With("panic", v).
		Errorf("hook %s panicked: %v", id, v)
}

// ErrTimeout reports a hook that did not finish before its deadline.
func ErrTimeout(id string, cause error) error {
	return oops.In("hook").
		Code(CodeTimeout).
		With("hook", id).
		Wrapf(cause, "hook %s timed out", id)
}

// ErrExecution wraps an error returned by a hook entry point.
func ErrExecution(id string, cause error) error {
	return oops.In("hook").
		Code(CodeExecutionFailed).
		With("hook", id).
		Wrapf(cause, "hook %s failed", id)
}

// ErrBadContribution reports a hook that returned something other than a
// mapping.
func ErrBadContribution(id, got string) error {
	return oops.In("hook").
		Code(CodeBadContribution).
		With("hook", id).
		With("type", got).
		Errorf("hook %s returned %s, want a table or nothing", id, got)
}

func errNotCallable(member, reason string) error {
	return oops.In("hook").
		Code(CodeNotCallable).
		With("member", member).
		Errorf("cannot call %q: %s", member, reason)
}

func errNoRuntime(d Descriptor) error {
	return oops.In("hook").
		Code(CodeNoRuntime).
		With("hook", d.ID()).
		With("runtime", d.Runtime).
		Errorf("no runtime registered for %q", d.Runtime)
}
