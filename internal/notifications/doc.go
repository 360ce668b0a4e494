// Package notifications delivers pipeline event notifications through ntfy.
package notifications
