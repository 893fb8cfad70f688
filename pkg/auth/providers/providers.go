// Package providers registers the built-in configuration providers and
// auth modules. Importing it for side effects makes the default provider
// and module set available to GetConfig:
//
//	import _ "github.com/authgate/authgate/pkg/auth/providers"
package providers

import (
	// Built-in configuration providers.
	_ "github.com/authgate/authgate/pkg/auth/configfile"

	// Built-in auth modules.
	_ "github.com/authgate/authgate/pkg/auth/modules/anonymous"
	_ "github.com/authgate/authgate/pkg/auth/modules/bearer"
	_ "github.com/authgate/authgate/pkg/auth/modules/headerauth"
	_ "github.com/authgate/authgate/pkg/auth/modules/jwtauth"
)
