package repository

import "errors"

// ErrAmbiguousName means a full-name lookup matched several distinct
// users. The caller must disambiguate; the repository never picks one.
var ErrAmbiguousName = errors.New("several users share this full name")
