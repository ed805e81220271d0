// Package history keeps the navigation history of a browsing session.
package history
