package store

import (
	"database/sql"
	"strconv"
)

// expectOneRow turns an update that matched nothing into sql.ErrNoRows.
func expectOneRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func itoa(value int) string {
	return strconv.Itoa(value)
}
