// Package queryengine implements the SQL engines the suite runs against:
// Trino in a container and Snowflake as a hosted service. Both go through
// database/sql with their vendor drivers.
package queryengine
