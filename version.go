package researchmesh

// Version is the module version, overridable at link time with
// -ldflags "-X github.com/hupe1980/researchmesh.Version=...".
var Version = "0.1.0"
