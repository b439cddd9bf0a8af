// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// Package mysql implements the MySQL client/server wire protocol
// directly: framing, capability negotiation, authentication,
// COM_QUERY, and prepared statements, without going through
// database/sql.
//
//	conn, err := mysql.Dial(ctx, "user:password@tcp(127.0.0.1:3306)/dbname")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer conn.Close()
//
//	rows, err := conn.Query(ctx, "SELECT id, name FROM users")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer rows.Close()
//
//	dest := make([]mysql.Value, len(rows.Columns()))
//	for rows.Next(dest) == nil {
//		fmt.Println(dest[0], dest[1])
//	}
package mysql
