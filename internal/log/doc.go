// Package log builds the structured loggers lexcrawl uses. Site
// configurations carry session cookies and custom headers, so every
// logger redacts credential-like attributes before they reach the
// output.
package log
