//go:build wasip1

// An example guest: run it under cmd/litehost to exercise the binding
// end to end.
package main

import (
	"fmt"
	"log"

	"github.com/litehost/litehost/guest"
)

func main() {
	guest.Init()

	if !guest.Available() {
		log.Fatal("sqlite binding is not available")
	}

	db, err := guest.Open("")
	if err != nil {
		log.Fatalf("open failed: %v", err)
	}
	if db == nil {
		log.Fatal("host could not open an in-memory database")
	}
	defer db.Close()

	if _, err := db.Execute("create table greetings (id integer primary key, text text)"); err != nil {
		log.Fatalf("create table: %v", err)
	}
	for _, text := range []string{"hello", "hola", "bonjour"} {
		if _, err := db.Execute("insert into greetings (text) values (?)", text); err != nil {
			log.Fatalf("insert: %v", err)
		}
	}

	rows, err := db.SelectFull("select id, text from greetings order by id")
	if err != nil {
		log.Fatalf("select: %v", err)
	}
	for _, row := range rows {
		fmt.Println(row)
	}

	cur, err := db.SelectSet("select text from greetings order by id desc")
	if err != nil {
		log.Fatalf("select set: %v", err)
	}
	for {
		row, err := cur.Next()
		if err != nil {
			log.Fatalf("next: %v", err)
		}
		if row == nil {
			break
		}
		fmt.Println("stepped:", row[0])
	}
	if _, err := cur.Finalize(); err != nil {
		log.Fatalf("finalize: %v", err)
	}
}
