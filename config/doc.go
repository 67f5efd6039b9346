// Package config builds the typed promptrelay configuration.
//
// Settings come from a dotenv file (config.env by default) overlaid by the
// process environment, which wins for any key it defines. Values may
// reference other settings as ${NAME} and may be secret references such as
// secretref:file:/run/secrets/key. The result is built once at startup;
// nothing re-scans keys per request.
//
// Numbered rule pairs (Detector1/Detector_Output1, SuperDetector1/
// SuperDetector_Output1, ...) become ordered slices, and every key starting
// with "Var" becomes a user fact.
package config
