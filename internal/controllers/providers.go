package controllers

import "github.com/google/wire"

// ProviderSet exposes the controller constructors for dependency injection
var ProviderSet = wire.NewSet(
	NewPrerequisiteResolver,
	NewIngestController,
	NewExtendedController,
	NewBackupController,
	NewPipeline,
)
