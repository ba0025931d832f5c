package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/golang-sql/sqlexp"
	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/woodsintl/woodsreport/internal/connector"
	"github.com/woodsintl/woodsreport/internal/model"
)

// Exec runs a stored procedure or a parameterized batch and collects every
// recordset plus the rows-affected count of each statement.
//
// A procedure name passed as the whole command text is sent by the driver
// as an RPC call, so the name is never parsed as T-SQL. In both cases the
// parameters travel as typed named arguments.
func (c *MSSQLConnector) Exec(ctx context.Context, cmd connector.Command) (*model.ProxyResult, error) {
	if c.db == nil {
		return nil, fmt.Errorf("mssql: not connected")
	}
	if strings.TrimSpace(cmd.Target) == "" {
		return nil, fmt.Errorf("mssql: empty command")
	}

	retmsg := &sqlexp.ReturnMessage{}
	args := append(namedArgs(cmd.Params), retmsg)

	rows, err := c.db.DB.QueryContext(ctx, cmd.Target, args...)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", cmd.Kind, cmd.Target, err)
	}
	defer rows.Close()

	result, err := collect(ctx, rows, retmsg)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", cmd.Kind, cmd.Target, err)
	}
	return result, nil
}

// collect drains the driver's message queue. Each MsgNext opens a new
// recordset, including empty ones, so recordset positions match the
// statements that produced them.
func collect(ctx context.Context, rows *sql.Rows, retmsg *sqlexp.ReturnMessage) (*model.ProxyResult, error) {
	result := model.NewProxyResult()
	var firstErr error

	active := true
	for active {
		msg := retmsg.Message(ctx)
		switch m := msg.(type) {
		case sqlexp.MsgNotice:
			// PRINT output and informational messages are not relayed.
		case sqlexp.MsgNext:
			set, err := scanRecordset(rows)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			result.Recordsets = append(result.Recordsets, set)
		case sqlexp.MsgRowsAffected:
			result.RowsAffected = append(result.RowsAffected, m.Count)
		case sqlexp.MsgNextResultSet:
			active = rows.NextResultSet()
		case sqlexp.MsgError:
			if firstErr == nil {
				firstErr = m.Error
			}
		}
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// scanRecordset reads the current result set. Columns keep the order the
// database produced them. A column name that repeats holds every value under
// that name as an array.
func scanRecordset(rows *sql.Rows) (model.Recordset, error) {
	cols, err := rows.Columns()
	if err != nil {
		return model.Recordset{}, fmt.Errorf("read columns: %w", err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return model.Recordset{}, fmt.Errorf("read column types: %w", err)
	}

	order := make([]string, 0, len(cols))
	count := make(map[string]int, len(cols))
	for _, col := range cols {
		if count[col] == 0 {
			order = append(order, col)
		}
		count[col]++
	}

	set := model.NewRecordset(order)
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return set, fmt.Errorf("scan row: %w", err)
		}

		row := make(model.Row, len(order))
		for i, col := range cols {
			v := cleanValue(values[i], types[i].DatabaseTypeName())
			if count[col] == 1 {
				row[col] = v
				continue
			}
			merged, _ := row[col].([]interface{})
			row[col] = append(merged, v)
		}
		set.Append(row)
	}
	return set, nil
}

// namedArgs binds params by name in a stable order.
func namedArgs(params model.Params) []interface{} {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]interface{}, 0, len(names)+1)
	for _, name := range names {
		args = append(args, sql.Named(model.NormalizeParamName(name), params[name]))
	}
	return args
}

// cleanValue converts driver values into JSON-friendly forms. DECIMAL and
// MONEY arrive as ASCII digits; UNIQUEIDENTIFIER arrives in the wire byte
// order and is rendered in its canonical string form.
func cleanValue(v interface{}, dbType string) interface{} {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if dbType == "UNIQUEIDENTIFIER" && len(b) == 16 {
		var id mssqldb.UniqueIdentifier
		if err := id.Scan(b); err == nil {
			return id.String()
		}
	}
	return string(b)
}
