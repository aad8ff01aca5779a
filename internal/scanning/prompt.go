package scanning

// transcribePrompt is the shared prompt used by all providers to read the
// text of a photographed or scanned invoice or receipt.
const transcribePrompt = `You are reading a photographed or scanned invoice or restaurant receipt.

Transcribe ALL text printed on the document exactly as it appears, top to bottom:
- keep one printed line per output line
- keep item names, quantities, units and prices on the same line as printed
- keep dates, totals, taxes and supplier details
- do not translate, summarize, correct or reorder anything
- do not add commentary, headings or markdown

Return only the transcribed text.`

// transcribeSystemPrompt is sent as the system message by chat-style providers.
const transcribeSystemPrompt = "You are an expert at reading invoices and receipts. You must carefully read all text in images and reproduce it accurately."
