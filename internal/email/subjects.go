package email

const subjectLowStockFmt = "Low stock: %s"
