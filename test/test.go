// Command test is a small smoke-test program exercising this module's
// direct API against a live server, in the teacher's tradition of
// keeping a runnable example alongside the library. It is not part of
// the automated test suite.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	mysql "github.com/Anefu/boost-mysql"
)

func main() {
	dsn := "root:123456@tcp(127.0.0.1:3306)/boost_mysql_test?timeout=5s&readTimeout=5s&writeTimeout=1s&parseTime=true"

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := mysql.Dial(ctx, dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	rows, err := conn.Query(ctx, "SELECT 1, 'hello'")
	if err != nil {
		log.Fatal(err)
	}
	defer rows.Close()

	dest := make([]mysql.Value, len(rows.Columns()))
	for rows.Next(dest) == nil {
		fmt.Println(dest[0], dest[1])
	}
}
