// Package config loads vmcatalog settings.
//
// Settings come from, in increasing precedence: built-in defaults, a YAML
// config file and VMCATALOG_* environment variables. Nested keys use an
// underscore in the environment, so retry.max_retries is read from
// VMCATALOG_RETRY_MAX_RETRIES.
//
// String settings may reference the environment as ${VAR}; a missing
// variable is an error. A value of the form secretref:<provider>:<ref> is
// resolved through a registered Provider. The env and file providers are
// always available:
//
//	client_id: ${VMCATALOG_APP_ID}
//	tenant_id: secretref:file:/run/secrets/tenant
package config
