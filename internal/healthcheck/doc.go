// Package healthcheck implements periodic health probing for forward
// destinations. It monitors destination availability and updates their health
// status based on HTTP health endpoint responses. Probe state is purely
// observational; the dispatcher attempts every destination regardless.
package healthcheck
