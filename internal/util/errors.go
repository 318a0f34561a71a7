package util

import "errors"

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrFocusNotFound       = errors.New("focus not found")
	ErrStepNotFound        = errors.New("step not found")
	ErrBadgeNotFound       = errors.New("badge not found")
	ErrItemNotFound        = errors.New("practice item not found")
	ErrAssignmentNotFound  = errors.New("no active assignment")
	ErrInvalidInput        = errors.New("invalid input")
	ErrBadgeAlreadyOwned   = errors.New("badge already owned")
	ErrMilestoneSubmitted  = errors.New("milestone already submitted for this focus")
	ErrMilestoneNotFound   = errors.New("milestone submission not found")
	ErrDependencyUnhealthy = errors.New("external dependency unavailable")
)
