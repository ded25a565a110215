package main

// @title Ledger Service API
// @version 1.0
// @description Inventory ledger and order reconciliation for a perishable-goods vendor. Stock and orders are partitioned by calendar day.

// @contact.name API Support
// @contact.url http://github.com/tair/produce-ledger

// @license.name MIT

// @host localhost:8082
// @BasePath /

// @tag.name Stock
// @tag.description Items, stock corrections and the available-stock read model

// @tag.name Orders
// @tag.description Order placement, edits and bill adjustments

// @tag.name Maintenance
// @tag.description Bill recalculation

// @tag.name Health
// @tag.description Health check endpoints

// @tag.name Swagger
// @tag.description Swagger documentation endpoints
