package extraction

const imageSystemPrompt = `Your task is to extract text from an image and turn it into structured data.
Specifically, you will receive an image of a cooking recipe whose text content
you will turn into a JSON object with a set structure.

The JSON structure can be described by the following TypeScript definition:
` + "```" + `
type Recipe = {
    // the recipe title
    title: string;
    // A short introductory text following the title
    preamble?: string;
    // The cooking instructions. Takes the form of a numbered markdown list
    instructions: string;
    // Any remaining text content in the recipe that does not fit in the above fields
    rest_text: string;

    // the time estimate for making the recipe, in minutes
    total_time?: number;

    // The author of the recipe
    original_author?: string;
    // ISO 639-1 code identifying the language of the recipe
    language?: string;

    // What is yielded by the recipe: muffins, servings, cookies, ...
    yields_type?: string;
    // The number of <yields_type> which the recipe yields. Must be an integer.
    yields_number?: number;

    // The ingredients used in the recipe. Note that this is an array of objects.
    // The same ingredient may appear multiple times, for example if used in multiple sub-recipes.
    ingredients: {
        // The name of just the ingredient with any fluff removed. E.g., "2 unripe bananas, peeled" becomes "banana"
        base_ingredient_name: string;
        // The name/description of the ingredient as it appears in the recipe
        name_in_recipe: string;
        // If the ingredient is part of a sub-recipe grouped together with other ingredients under some header, then the group name is that header string
        group_name?: string;
        // The amount of the ingredient which should be used
        base_amount?: number;
        // The unit in which the ingredient is measured: grams, ounces, etc.
        // Should always use the shortened string version of the unit. "g" instead of "grams", "oz" instead of "ounces" and so on
        unit?: string;
        // Whether the ingredient may be omitted from the recipe or not. Defaults to false.
        is_optional: boolean;
    }[]
}
` + "```" + `

The user input will be the image of the recipe. You will reply with ONLY the JSON
describing the recipe. You will NOT output anything other than the JSON structure.

Your job is to recreate the recipe text exactly. Do not add to, embellish or change
any of the recipe contents. Keep the original language intact and do not translate anything.

Here is an example recipe JSON object:
{
    "title": "Pancakes with homemade blueberry jam",
    "preamble": "The world's most delicious pancakes with the world's best jam. Don't miss it!",
    "instructions": "1. Create the pancake batter as instructed on the packet\n\n2. Leave the batter to swell\n\n3. Mix the blueberries and sugar, before crushing them with a fork\n\n4. Fry the pancakes\n\n5. Serve the fresh pancakes with your delicious homemade blueberry jam",
    "yields_type": "serving",
    "yields_number": 2,
    "rest_text": "This is an old family recipe passed down for generations.",
    "ingredients": [
        {
            "name_in_recipe": "pancake mix",
            "base_ingredient_name": "pancake mix",
            "group_name": "The Pancakes",
            "base_amount": 1,
            "is_optional": false
        },
        {
            "name_in_recipe": "unsalted butter for frying",
            "base_ingredient_name": "unsalted butter",
            "group_name": "The Pancakes",
            "is_optional": false
        },
        {
            "name_in_recipe": "fresh blueberries",
            "base_ingredient_name": "blueberry",
            "group_name": "Blueberry Jam",
            "base_amount": 300,
            "unit": "g",
            "is_optional": false
        },
        {
            "name_in_recipe": "granulated sugar",
            "base_ingredient_name": "sugar",
            "group_name": "Blueberry Jam",
            "base_amount": 100,
            "unit": "g",
            "is_optional": false
        }
    ]
}`

const imageUserText = "please convert this image to JSON."

const textSystemPrompt = `Your task is to structure text. Specifically, you will be given text
extracted from images of cooking recipes, and will give structure to the
text by dividing it into the following categories:
    title, preamble, yield, content, instructions, ingredients.

Each piece of text fits in a single category.
Many of the categories may not appear in the recipe. However,
the "instructions" and "ingredients" categories almost always do.
The "content" category is only to be used for pieces of text that do
not fit in any of the other categories.

Ingredients may be grouped by which part of the recipe they are used in.
Try to preserve these groupings if possible.
In the following example, there are two groups and four ingredients:
"
For the chicken:
1 lb chicken thighs
2 tsp chicken spice
For the sauce:
1/4 cup white wine
1 tbsp unsalted butter
"
Therefore, the groupings will be as follows:
` + "```" + `
{
    "For the chicken": ["1 lb chicken thighs", "2 tsp chicken spice"],
    "For the sauce": ["1/4 cup white wine", "1 tbsp unsalted butter"]
}
` + "```" + `

The user input will be the recipe text. Your reply should be the recipe text
divided up into the categories described above.

You are NOT allowed to alter the recipe text in any semantically meaningful way.
You will not duplicate text.
You may remove words and/or characters if it is clear that they are wrongful
artefacts produced by the OCR performed on the image.

The output should be formatted using the JSON format. Your output will be a
single JSON object with a series of keys mapping to values.
Each category will be a key, and the text belonging to that category will
be the value. You may turn strings that represent lists into JSON arrays.

Groupings of ingredients should be preserved. This is achieved by
representing the ingredients as a JSON object, with the keys being
the ingredient group names and the values being the list of ingredients
belonging to that group. If no group name for the ingredients is given,
all ingredients can be placed under a single key equalling the empty string ("").

An example output object could look like this:
{
    "title": "Pancakes with homemade blueberry jam",
    "ingredients": {
        "Pancakes": [
            "1 packet of pancake mix",
            "Butter"
        ],
        "Blueberry jam": [
            "300 grams fresh blueberries",
            "100 grams sugar"
        ]
    },
    "instructions": [
        "Create the pancake batter as instructed on the packet",
        "Leave the batter to swell",
        "Mix the blueberries and sugar, before crushing them with a fork",
        "Fry the pancakes",
        "Serve the fresh pancakes with your delicious homemade blueberry jam"
    ],
    "yields": "2 servings"
}`

func imageHintMessage(hint string) string {
	return "You have been provided with the following hint to help you parse the image correctly:\n" + hint
}

func textHintMessage(hint string) string {
	return "You have been provided with the following information about the document to help you parse it correctly:\n\"" + hint + "\""
}
