package models

import "github.com/pkg/errors"

var errCommitteeTooSmall = errors.New("committee must have at least one member")
