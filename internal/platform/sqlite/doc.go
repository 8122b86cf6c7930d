// Package sqlite открывает встроенную SQLite базу (драйвер modernc.org/sqlite,
// без CGO), применяет схему через golang-migrate и выполняет код в транзакциях.
//
// Типичное использование:
//
//	db, err := sqlite.NewDB(ctx, "data/bot.db")
//	if err != nil {
//	    return err
//	}
//	if err := sqlite.ApplyMigrations(db, migrations.FS, "sqlite"); err != nil {
//	    return err
//	}
//	tx := sqlite.NewTxRunner(db)
//	err = tx.WithinTx(ctx, func(ctx context.Context) error {
//	    _, err := tx.GetQuerier(ctx).ExecContext(ctx, "INSERT ...")
//	    return err
//	})
//
// Соединение открывается в WAL режиме с busy_timeout, чтобы запись из
// обработчика /start и чтение статистики планировщиком не блокировали друг друга.
package sqlite
