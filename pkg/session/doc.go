// Package session runs the forwarding pipeline. A Session owns one grabbed
// physical device and one virtual device and copies translated events from
// the first to the second; a Supervisor starts one Session per configured
// device name and collects how each one ended.
package session
