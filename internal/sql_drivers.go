package internal

import (
	// Register database/sql drivers used by the sql and riverqueue
	// dispatch drivers.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)
