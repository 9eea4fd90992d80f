package mysql

import "queuepanel/pkg/store/mysql/model"

type (
	// Database models
	Task = model.Task

	// Custom JSON types
	JSONMap = model.JSONMap
)
