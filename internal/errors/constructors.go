package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *PacksmithError {
	return New(CategoryConfig, SeverityFatal, "project file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *PacksmithError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

// Generation errors

func UnknownPlaceholder(name, template string) *PacksmithError {
	return New(CategoryFormat, SeverityError, "unknown placeholder in template").
		WithContext("placeholder", name).
		WithContext("template", template)
}

func InvalidArgument(operation, reason string) *PacksmithError {
	return New(CategoryArgument, SeverityError, "invalid argument").
		WithContext("operation", operation).
		WithContext("reason", reason)
}

// Pack content errors

func InvalidPackKey(key string) *PacksmithError {
	return New(CategoryPack, SeverityError, "malformed pack key").
		WithContext("key", key)
}

func PackIOError(path string, cause error) *PacksmithError {
	return Wrap(cause, CategoryPack, SeverityError, "pack read/write failed").
		WithContext("path", path)
}

// Cache errors

func CacheError(bucket string, cause error) *PacksmithError {
	return Wrap(cause, CategoryCache, SeverityError, "cache operation failed").
		WithContext("bucket", bucket)
}

// Build pipeline errors

func PluginNotFound(name string) *PacksmithError {
	return New(CategoryPipeline, SeverityFatal, "plugin not registered").
		WithContext("plugin", name)
}

func BuildFailed(step string, cause error) *PacksmithError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "build failed").
		WithContext("step", step)
}

// Link errors

func LinkTargetInvalid(path, reason string) *PacksmithError {
	return New(CategoryLink, SeverityError, "link target invalid").
		WithContext("path", path).
		WithContext("reason", reason)
}

// Internal errors

func InternalError(message string, cause error) *PacksmithError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
